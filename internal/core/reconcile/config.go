package reconcile

import "time"

const (
	DefaultCallTimeout  = 10 * time.Second
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
)

type Config struct {
	// CallTimeout bounds every individual registry call.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	// PollAttempts is how many times convergence is checked after a mutation
	// before the event is reported as failed.
	PollAttempts int           `mapstructure:"poll_attempts" validate:"min=1,max=120"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	// RefuseUnowned makes Create and Update fail on an existing group that
	// carries no owner attribute instead of adopting it. Delete then leaves
	// such groups in place.
	RefuseUnowned bool `mapstructure:"refuse_unowned"`
}

func DefaultConfig() Config {
	return Config{
		CallTimeout:  DefaultCallTimeout,
		PollAttempts: DefaultPollAttempts,
		PollInterval: DefaultPollInterval,
	}
}
