package excel

// Sheet names used in exported workbooks
const (
	SheetSummary    = "Summary"
	SheetHistory    = "History"
	SheetBenchmarks = "Benchmarks"
)

// historyHeader is the column layout of the History sheet and of history CSV files
var historyHeader = []string{"step", "phase", "integral", "error", "n_points", "loss", "pooled"}

var benchmarkHeader = []string{
	"suite", "integrand", "dims", "target", "value", "error",
	"flat_value", "flat_error", "pull", "sigma_cutoff", "match", "flat_variance_ratio",
}
