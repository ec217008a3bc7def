package commands

import (
	"io"

	"tdsync/internal/config"
	"tdsync/internal/engine"
	"tdsync/internal/exitcode"
	"tdsync/internal/output"
	"tdsync/internal/query"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

// newEngine wires the session store, query composer, renderer and sync
// engine a command needs. Snapshot output goes to listOut; mutation
// commands pass io.Discard there so they print a bare "ok" while the
// follow-up reload still runs.
func newEngine(cfg *config.Config, svc service.Service, listOut, errOut io.Writer) (*engine.Engine, *session.Store, *query.Composer) {
	sess := session.Load(cfg)
	comp := query.New(cfg.Debounce(), cfg.Settings.PageSize)
	r := output.New(listOut, errOut, cfg.Quiet)
	return engine.New(svc, sess, comp, r), sess, comp
}

// errorCode maps a service error kind to an exit code.
func errorCode(err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		return exitcode.AuthError
	case service.KindValidation, service.KindNotFound:
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}
