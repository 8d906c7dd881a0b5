package version

import (
	"runtime"
	rdebug "runtime/debug"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GitCommit   string
	GitBranch   string
	GitSummary  string
	BuildDate   string
	AppVersion  string
	GinVersion  = ginVersion()
	SqlxVersion = sqlxVersion()
	GoVersion   = runtime.Version()
)

type Version struct {
	GitCommit   string `json:"git_commit"`
	GitBranch   string `json:"git_branch"`
	GitSummary  string `json:"git_summary"`
	BuildDate   string `json:"build_date"`
	AppVersion  string `json:"app_version"`
	GoVersion   string `json:"go_version"`
	GinVersion  string `json:"gin_version"`
	SqlxVersion string `json:"sqlx_version"`
}

func Current() Version {
	return Version{
		GitBranch:   GitBranch,
		GitCommit:   GitCommit,
		GitSummary:  GitSummary,
		BuildDate:   BuildDate,
		AppVersion:  AppVersion,
		GoVersion:   GoVersion,
		GinVersion:  GinVersion,
		SqlxVersion: SqlxVersion,
	}
}

func ExportBuildInfoMetric() {
	buildInfo := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_build_info",
			Help: "A metric with a constant '1' value, labeled by branch, commit, summary, builddate, version, Go version from which the inventory service was built.",
		},
		[]string{"branch", "commit", "summary", "builddate", "version", "goversion"},
	)

	buildInfo.WithLabelValues(GitBranch, GitCommit, GitSummary, BuildDate, AppVersion, GoVersion).Set(1)
}

func ginVersion() string {
	return depVersion("gin-gonic/gin")
}

func sqlxVersion() string {
	return depVersion("jmoiron/sqlx")
}

func depVersion(path string) string {
	buildInfo, ok := rdebug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, d := range buildInfo.Deps {
		if strings.Contains(d.Path, path) {
			return d.Version
		}
	}

	return ""
}
