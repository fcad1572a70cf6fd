// Package log is the structured logging interface used by escapetime.
//
// Components depend on the small Logger interface rather than on a
// concrete library. The zerolog adapter is the production implementation;
// the no-op logger is used by tests and by library callers that do not
// want output.
//
//	logger, err := log.New(log.Options{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger.Info("grid computed", log.Int("width", 800), log.Duration("took", d))
package log
