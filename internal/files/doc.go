// Package files finds and manages export artifacts in the browser download
// directory.
//
// Discovery lists candidate files newest first and recognises downloads the
// browser is still writing. ArtifactStore builds on it to wait for the
// newest complete CSV of a run and to delete it once it has been ingested.
//
// Example usage:
//
//	store := files.NewArtifactStore(paths.DownloadsDir, cfg.Artifact, logger).Since(time.Now())
//	path, err := store.WaitLatest(ctx)
//	if err != nil {
//	    return err
//	}
//	defer store.Remove(path)
package files
