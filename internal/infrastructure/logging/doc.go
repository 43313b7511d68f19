// Package logging provides structured logging using uber/zap.
//
// Production loggers write JSON; development loggers write colored console
// output. Components receive a *Logger and scope it with Component:
//
//	log := logging.NewDefault().Component("federation")
//	log.Info("mount activated", zap.String("mount_point", mp))
//
// Tests use NewNop.
package logging
