package pubsub

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	subsBucket        = []byte("subscriptions")
	subsByEventBucket = []byte("subscriptionsbyevent")
)

const openTimeout = time.Second

// store keeps subscriptions by id, and the ids of the subscriptions of a
// topic in a nested bucket named after the topic code.
type store struct {
	db *bolt.DB
}

func newStore(path string) (*store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriptions db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(subsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(subsByEventBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &store{db}, nil
}

// add stores the subscription unless one with the same id already exists.
func (s *store) add(sub *Subscription) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		subs := tx.Bucket(subsBucket)
		id := []byte(sub.ID)
		if subs.Get(id) != nil {
			return nil
		}
		if err := subs.Put(id, sub.Serialize()); err != nil {
			return err
		}

		byEvent, err := tx.Bucket(subsByEventBucket).CreateBucketIfNotExists(
			topicKey(sub.Event),
		)
		if err != nil {
			return err
		}
		return byEvent.Put(id, []byte{})
	})
}

// remove deletes the subscription and tells whether it existed.
func (s *store) remove(subID string) (bool, error) {
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		subs := tx.Bucket(subsBucket)
		id := []byte(subID)
		buf := subs.Get(id)
		if buf == nil {
			return nil
		}
		found = true

		sub, err := NewSubscriptionFromBytes(buf)
		if err != nil {
			return err
		}
		if err := subs.Delete(id); err != nil {
			return err
		}

		byEvents := tx.Bucket(subsByEventBucket)
		key := topicKey(sub.Event)
		byEvent := byEvents.Bucket(key)
		if byEvent == nil {
			return nil
		}
		if err := byEvent.Delete(id); err != nil {
			return err
		}
		if k, _ := byEvent.Cursor().First(); k == nil {
			return byEvents.DeleteBucket(key)
		}
		return nil
	})
	return found, err
}

func (s *store) listForTopic(topic Topic) (subscriptions, error) {
	list := make(subscriptions, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		byEvent := tx.Bucket(subsByEventBucket).Bucket(topicKey(topic))
		if byEvent == nil {
			return nil
		}
		subs := tx.Bucket(subsBucket)
		return byEvent.ForEach(func(id, _ []byte) error {
			buf := subs.Get(id)
			if buf == nil {
				return nil
			}
			sub, err := NewSubscriptionFromBytes(buf)
			if err != nil {
				return err
			}
			list = append(list, *sub)
			return nil
		})
	})
	return list, err
}

func (s *store) close() error {
	return s.db.Close()
}

func topicKey(topic Topic) []byte {
	return []byte{byte(topic)}
}
