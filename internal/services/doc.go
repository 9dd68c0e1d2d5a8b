// Package services holds the read-side services behind the HTTP API that
// are not part of a validation run itself.
//
// HealthService answers liveness, readiness and version checks. Readiness
// checks that the browser download directory exists, that reports can be
// written, and reports whether a run is in progress:
//
//	health := services.NewHealthService(config.AppVersion, buildTime, paths,
//	    manager, hub, files.NewDirectoryChecker(logger), customers.Len(), logger)
//	status := health.ReadinessCheck(ctx)
package services
