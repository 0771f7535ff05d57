package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health       - Health check")
	fmt.Println("  GET  /stats        - Server statistics")
	fmt.Println("  POST /api/tailor   - Tailor a LaTeX resume to a job description")
	fmt.Println("  POST /api/compile  - Compile LaTeX (JSON or multipart upload) to PDF")
	fmt.Println("  POST /api/jobdesc  - Extract the text of a job posting URL")
	fmt.Println("  GET  /api/models   - List available Gemini models")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/*")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
	if s.MaxUploadSize > 0 {
		fmt.Printf("Upload size limit: %d bytes (%.1f MB)\n", s.MaxUploadSize, float64(s.MaxUploadSize)/(1024*1024))
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.limiters == nil {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
		return
	}

	stats := s.limiters.Stats()
	fmt.Println("Rate limiting: ENABLED (per client IP)")
	for _, class := range []string{"tailor", "upload"} {
		cs, ok := stats[class].(map[string]any)
		if !ok {
			continue
		}
		if burst, ok := cs["burst_capacity"]; ok {
			fmt.Printf("  - %s: token bucket, burst %v\n", class, burst)
			continue
		}
		fmt.Printf("  - %s: %v requests per %v (%v)\n", class, cs["limit"], cs["window"], cs["backend"])
	}
}
