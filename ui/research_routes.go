package ui

import (
	"researchdesk/ports"
)

// AddResearchRoutes mounts the research orchestration API.
func (s *Server) AddResearchRoutes(scheduler RunScheduler, finalizer ReportFinalizer, repo ports.ResearchRepository) {
	handler := NewResearchHandler(scheduler, finalizer, repo)

	api := s.router.Group("/api/research")
	{
		api.POST("", handler.HandleCreateSession)
		api.GET("/:id", handler.HandleGetSession)
		api.PATCH("/:id", handler.HandleUpdateSession)
		api.POST("/:id/run", handler.HandleRunAll)
		api.POST("/:id/providers/:provider/run", handler.HandleScheduleRun)
		api.POST("/:id/providers/:provider/retry", handler.HandleRetryRun)
		api.POST("/:id/finalize", handler.HandleFinalize)
	}
}
