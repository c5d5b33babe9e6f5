package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

// RollbarLogger mirrors every entry to the wrapped std logger and, when
// enabled, reports it to rollbar. The first user.User among the args is
// reported as the acting person rather than as payload.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

func (l RollbarLogger) report(level, msg string, args []interface{}) {
	l.std.Println(msg)

	payload := make([]interface{}, 0, len(args)+1)
	payload = append(payload, msg)
	var actorSet bool
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
		if actor, ok := arg.(user.User); ok && !actorSet {
			rollbar.SetPerson(actor.ID, actor.Username, actor.Email)
			actorSet = true
			continue
		}
		payload = append(payload, arg)
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, payload...)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.std.Fatal(msg)
}
