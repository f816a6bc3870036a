package queries

import (
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v7"
)

// RedisStore keeps chosen values under 'chosen:<csn>' keys, with the set
// 'chosen' tracking which csns exist so they can be enumerated.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the redis server at @addr and PINGs it once.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("queries: redis server did not PONG back to our PING: %v", err)
	}
	return &RedisStore{client: client}, nil
}

func chosenKey(csn int) string {
	return fmt.Sprintf("chosen:%d", csn)
}

// SetChosenValue inserts/updates the chosen value for @csn.
func (s *RedisStore) SetChosenValue(csn int, v string) error {
	if err := s.client.Set(chosenKey(csn), v, 0).Err(); err != nil {
		return err
	}
	return s.client.SAdd("chosen", csn).Err()
}

// GetChosenValue returns the chosen value for @csn.
// If no value has been chosen for the requested @csn, an empty string is returned.
func (s *RedisStore) GetChosenValue(csn int) (string, error) {
	v, err := s.client.Get(chosenKey(csn)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// GetAllChosenValues returns every stored (csn, value) pair, enumerated
// through the 'chosen' set.
func (s *RedisStore) GetAllChosenValues() (map[int]string, error) {
	csns, err := s.client.SMembers("chosen").Result()
	if err != nil {
		return nil, err
	}

	m := make(map[int]string)
	for _, raw := range csns {
		csn, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("queries: bad csn %q in chosen set: %v", raw, err)
		}
		v, err := s.GetChosenValue(csn)
		if err != nil {
			return nil, err
		}
		m[csn] = v
	}
	return m, nil
}

// ResetAllChosenValues deletes every chosen value and the tracking set.
func (s *RedisStore) ResetAllChosenValues() error {
	csns, err := s.client.SMembers("chosen").Result()
	if err != nil {
		return err
	}
	for _, raw := range csns {
		if err := s.client.Del("chosen:" + raw).Err(); err != nil {
			return err
		}
	}
	return s.client.Del("chosen").Err()
}

// Close closes the client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
