package handler

import (
	"github.com/gin-gonic/gin"
)

// Router bundles the API handlers for route registration.
type Router struct {
	Absences      *AbsenceHandler
	Coverage      *CoverageHandler
	Distribution  *DistributionHandler
	Modes         *ModeHandler
	Substitutions *SubstitutionHandler
	Metrics       *MetricsHandler
}

// Register mounts every route group under the API prefix. Substitution
// export routes are skipped when exports are disabled.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	absences := api.Group("/absences")
	absences.POST("", rt.Absences.Create)
	absences.GET("", rt.Absences.List)
	absences.GET("/:id", rt.Absences.Get)
	absences.DELETE("/:id", rt.Absences.Cancel)
	absences.POST("/:id/distribution", rt.Distribution.PlanAbsence)

	coverage := api.Group("/coverage")
	coverage.GET("/candidates", rt.Coverage.Candidates)
	coverage.GET("/swap", rt.Coverage.Swap)
	coverage.POST("/requests/:id/assign", rt.Coverage.Assign)
	coverage.DELETE("/requests/:id", rt.Coverage.CancelRequest)

	distribution := api.Group("/distribution")
	distribution.POST("/modes", rt.Distribution.PlanModes)
	distribution.GET("/runs/:id", rt.Distribution.GetRun)

	modes := api.Group("/modes")
	modes.GET("", rt.Modes.List)
	modes.POST("", rt.Modes.Create)
	modes.GET("/:id", rt.Modes.Get)
	modes.PUT("/:id", rt.Modes.Update)
	modes.DELETE("/:id", rt.Modes.Delete)

	if rt.Substitutions != nil {
		api.GET("/substitutions", rt.Substitutions.List)
		api.GET("/substitutions/export", rt.Substitutions.Export)
		api.GET("/exports/:token", rt.Substitutions.Download)
	}

	if rt.Metrics != nil {
		r.GET("/metrics", rt.Metrics.Prometheus)
		api.GET("/metrics/summary", rt.Metrics.Snapshot)
	}
}
