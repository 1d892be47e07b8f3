// Package log builds the crawler's slog loggers.
//
// Every logger is wrapped in a SecureHandler that masks cookies, auth
// headers, tokens and proxy credentials before a record reaches the output.
// Header maps logged as a single attribute are expanded into a group and
// masked per header. Verbose mode lowers the level from Warn to Debug.
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Debug("request prepared", "headers", headers, "proxy", proxyURL)
package log
