package logx

import (
	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/config"
)

// Init sets up the process logger and returns a function flushing it.
func Init(c config.LogConfig) (func(), error) {
	logger.SetSeverity(c.Level)

	switch c.Output {
	case "", "stderr":
		logger.LogToStderr()
	case "file":
		lb, err := logger.NewFileBackend(c.Dir)
		if err != nil {
			return nil, errors.WithMessage(err, "NewFileBackend failed")
		}

		if c.KeepHours != 0 {
			lb.SetRotateByHour(true)
			lb.SetKeepHours(c.KeepHours)
		} else if c.RotateNum != 0 {
			lb.Rotate(c.RotateNum, c.RotateSize*1024*1024)
		} else {
			return nil, errors.New("KeepHours and RotateNum both are 0")
		}

		logger.SetLogging(c.Level, lb)
	default:
		return nil, errors.Errorf("unknown log output: %s", c.Output)
	}

	return func() {
		logger.Close()
	}, nil
}
