package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OperatorKey проверяет сервисный ключ операторов выплат по bcrypt-хэшу.
// Пустой хэш отключает такой вход.
type OperatorKey struct {
	hash []byte
}

func NewOperatorKey(hash string) *OperatorKey {
	return &OperatorKey{hash: []byte(hash)}
}

func (k *OperatorKey) Enabled() bool {
	return k != nil && len(k.hash) > 0
}

func (k *OperatorKey) Check(key string) (Identity, bool) {
	if !k.Enabled() || key == "" {
		return Identity{}, false
	}
	if bcrypt.CompareHashAndPassword(k.hash, []byte(key)) != nil {
		return Identity{}, false
	}
	return Identity{UserID: uuid.Nil, Admin: true}, true
}
