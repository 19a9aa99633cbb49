package kvrepo

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	keyUsers           = "users"
	keyAllTransactions = "tx:all"
	keyAllAudits       = "audit:all"
	keyAllSupport      = "support:all"
)

func userKey(id string) string { return "user:" + id }

func userEmailKey(email string) string { return "user:email:" + email }

func userUsernameKey(username string) string { return "user:username:" + username }

func walletKey(userID string) string { return "wallet:" + userID }

func userTransactionsKey(userID string) string { return "tx:user:" + userID }

func userAuditsKey(userID string) string { return "audit:user:" + userID }

func sessionUserKey(userID string) string { return "session:user:" + userID }

func sessionTokenKey(token string) string { return "session:token:" + token }

func notificationsKey(recipient string) string { return "notifications:" + recipient }

func pinKey(userID string) string { return "pin:" + userID }

func userSupportKey(userID string) string { return "support:user:" + userID }

// getJSON decodes the record at key into a new T, returning nil if absent
func getJSON[T any](ctx context.Context, s *stagedStore, key string) (*T, error) {
	raw, ok, err := s.getOK(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &v, nil
}

func encodeRecord(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return raw, nil
}

func setJSON(s *stagedStore, key string, v any) error {
	raw, err := encodeRecord(v)
	if err != nil {
		return err
	}
	s.Set(key, raw)
	return nil
}

func appendJSON(s *stagedStore, v any, keys ...string) error {
	raw, err := encodeRecord(v)
	if err != nil {
		return err
	}
	for _, key := range keys {
		s.Append(key, raw)
	}
	return nil
}

func listJSON[T any](ctx context.Context, s *stagedStore, key string) ([]*T, error) {
	raws, err := s.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", key, err)
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode entry of %s: %w", key, err)
		}
		out = append(out, &v)
	}
	return out, nil
}
