package api

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/analyze/agent/:type", s.handleAnalyzeAgent)
		v1.POST("/portfolio/assess", s.handlePortfolioAssess)
		v1.POST("/killswitch/evaluate", s.handleKillSwitchEvaluate)
		v1.POST("/feedback", s.handleFeedback)
	}

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/", s.handleRoot)
}
