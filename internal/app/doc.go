// Package app wires the export check components together and manages
// their lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from the YAML file and EXPORTCHECK_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the working directories
//	4. Load the optional customer list
//	5. Build the run manager around the browser executor
//	6. With Options.Server, start the progress hub and build the router
//
// # Usage
//
//	a, err := app.NewApplication(app.Options{Server: true})
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// The CLI builds the application without a server and calls
// a.Runs.Run directly.
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Stop shuts the server down, cancels the
// active run, stops the hub and flushes telemetry. Errors are returned to
// the caller; the package never calls os.Exit.
package app
