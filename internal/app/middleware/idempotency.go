package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
)

// IdempotentCommand is implemented by commands that may be retried by the
// client with the same Idempotency-Key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// Idempotency replays the stored result of a successful command. Failures are
// not stored, so a rejected write re-evaluates on retry against fresh data.
// The command has committed before the record is saved; a save failure is
// logged and the result still returned.
func Idempotency(store IdempotencyStore, codec ResultCodec, now func() time.Time, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if now == nil {
		now = time.Now
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
			if found {
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if len(rec.Payload) > 0 {
					if err := codec.Decode(rec.Payload, proto); err != nil {
						return nil, err
					}
				}
				return normalizePrototype(proto), nil
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: now().UTC()}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					logIdempotencyFailure(logger, key, encErr)
					return result, nil
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				logIdempotencyFailure(logger, key, saveErr)
			}
			return result, nil
		})
	}
}

func logIdempotencyFailure(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Error("idempotency record not saved", "key", key, "error", err)
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
