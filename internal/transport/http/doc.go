// Package http implements the HTTP handlers of the export check service.
// Handlers stay thin: they decode and validate the request, call the run
// manager or a read-only service, and format the response.
//
// # Endpoints
//
//	POST   /api/validations               start a run (202, 409 while another run holds the download directory)
//	GET    /api/validations               list runs (?status=&customer=&limit=)
//	GET    /api/validations/{id}          run state
//	DELETE /api/validations/{id}          cancel a running run
//	GET    /api/validations/{id}/report   report as html, json, xlsx or csv (?format=)
//	GET    /api/customers                 selectable customers
//	GET    /api/export-kinds              export kinds and environments
//	GET    /api/health[/ready|/live|/detailed]
//	GET    /api/version
//	GET    /api/stats
//	GET    /api/metrics
//
// # Error Handling
//
// All errors are written through errors.ErrorHandler as RFC 7807 problem
// details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/validations"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a chi router and testify mocks
// of RunService.
package http
