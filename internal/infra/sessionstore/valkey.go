package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/clinic-assistant/internal/domain/session"
)

// ValkeyStore keeps sessions as JSON strings whose EX is refreshed on Save.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs the store; a non-positive ttl uses session.DefaultTTL.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "session"
	}
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements session.Store.
func (s *ValkeyStore) Get(ctx context.Context, key string) (session.Session, bool, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return session.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Save implements session.Store.
func (s *ValkeyStore) Save(ctx context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.key(sess.Key)).Value(string(payload)).Ex(s.ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Delete implements session.Store.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

func (s *ValkeyStore) key(phone string) string {
	return fmt.Sprintf("%s:%s", s.prefix, phone)
}

var _ session.Store = (*ValkeyStore)(nil)
