package faqstore

import (
	"context"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

const defaultTopLimit = 10

// ValkeyStore keeps one sorted set of hit counts per clinic plus a hash of
// display strings. Keys are <prefix>:<clinic>:hits and <prefix>:<clinic>:display.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faq"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// IncrementQuery implements faq.Store.
func (s *ValkeyStore) IncrementQuery(ctx context.Context, clinicID, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if display == "" {
		display = canonical
	}
	cmds := valkey.Commands{
		s.client.B().Zincrby().Key(s.hitsKey(clinicID)).Increment(1).Member(canonical).Build(),
		s.client.B().Hsetnx().Key(s.displayKey(clinicID)).Field(canonical).Value(display).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

// TopQueries implements faq.Store. A non-positive limit uses the default of 10.
func (s *ValkeyStore) TopQueries(ctx context.Context, clinicID string, limit int) ([]faq.TrendingQuery, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	cmd := s.client.B().Zrevrange().Key(s.hitsKey(clinicID)).Start(0).Stop(int64(limit - 1)).Withscores().Build()
	scores, err := s.client.Do(ctx, cmd).AsZScores()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}

	members := make([]string, len(scores))
	for i, z := range scores {
		members[i] = z.Member
	}
	displays, err := s.client.Do(ctx, s.client.B().Hmget().Key(s.displayKey(clinicID)).Field(members...).Build()).ToArray()
	if err != nil {
		return nil, err
	}

	out := make([]faq.TrendingQuery, 0, len(scores))
	for i, z := range scores {
		display := z.Member
		if i < len(displays) {
			if v, err := displays[i].ToString(); err == nil && v != "" {
				display = v
			}
		}
		out = append(out, faq.TrendingQuery{Query: display, Count: int64(z.Score)})
	}
	return out, nil
}

func (s *ValkeyStore) hitsKey(clinicID string) string {
	return s.prefix + ":" + clinicID + ":hits"
}

func (s *ValkeyStore) displayKey(clinicID string) string {
	return s.prefix + ":" + clinicID + ":display"
}

var _ faq.Store = (*ValkeyStore)(nil)
