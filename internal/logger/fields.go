package logger

import (
	"time"

	"go.uber.org/zap"
)

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

// UserID is the account id. Emails and credentials are never logged.
func UserID(v string) zap.Field { return zap.String("user_id", v) }
