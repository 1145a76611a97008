package sheetsync

import (
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/lk2023060901/partysheet/pkg/serializer"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// RecentKey 最近访问列表的固定键
const RecentKey = "recent-sheets"

var recentBucket = []byte("partysheet")

// RecentSheet 最近访问的表
type RecentSheet struct {
	ID             string
	Name           string
	Characters     []string
	LastAccessedAt time.Time
}

type recentRecord struct {
	ID             string   `codec:"id"`
	Name           string   `codec:"name"`
	Characters     []string `codec:"characters"`
	LastAccessedAt int64    `codec:"lastAccessedAt"`
}

// RecentStore 基于 bbolt 的最近访问列表，按访问时间倒序
type RecentStore struct {
	db  *bolt.DB
	max int
}

// OpenRecent 打开或创建 bbolt 文件
func OpenRecent(path string, max int) (*RecentStore, error) {
	if max <= 0 {
		max = DefaultConfig().MaxRecent
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open recent store %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recentBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create recent bucket")
	}
	return &RecentStore{db: db, max: max}, nil
}

// Touch 挂载表页面时调用，把该表移到列表最前
func (r *RecentStore) Touch(s sheet.Sheet, now time.Time) error {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.Name)
	}
	entry := recentRecord{ID: s.ID, Name: s.Name, Characters: names, LastAccessedAt: now.UnixMilli()}

	return r.update(func(list []recentRecord) []recentRecord {
		out := make([]recentRecord, 0, len(list)+1)
		out = append(out, entry)
		for _, e := range list {
			if e.ID != s.ID {
				out = append(out, e)
			}
		}
		if len(out) > r.max {
			out = out[:r.max]
		}
		return out
	})
}

// Remove 从列表中删除
func (r *RecentStore) Remove(id string) error {
	return r.update(func(list []recentRecord) []recentRecord {
		out := list[:0]
		for _, e := range list {
			if e.ID != id {
				out = append(out, e)
			}
		}
		return out
	})
}

// List 按最近访问排序
func (r *RecentStore) List() ([]RecentSheet, error) {
	var list []recentRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		list, err = readRecent(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]RecentSheet, 0, len(list))
	for _, e := range list {
		out = append(out, RecentSheet{
			ID:             e.ID,
			Name:           e.Name,
			Characters:     e.Characters,
			LastAccessedAt: time.UnixMilli(e.LastAccessedAt),
		})
	}
	return out, nil
}

// Close 关闭文件
func (r *RecentStore) Close() error {
	return r.db.Close()
}

func (r *RecentStore) update(fn func([]recentRecord) []recentRecord) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		list, err := readRecent(tx)
		if err != nil {
			return err
		}
		data, err := serializer.Encode(fn(list))
		if err != nil {
			return errors.Wrap(err, "encode recent sheets")
		}
		return tx.Bucket(recentBucket).Put([]byte(RecentKey), data)
	})
}

func readRecent(tx *bolt.Tx) ([]recentRecord, error) {
	data := tx.Bucket(recentBucket).Get([]byte(RecentKey))
	if data == nil {
		return nil, nil
	}
	var list []recentRecord
	if err := serializer.Decode(data, &list); err != nil {
		return nil, errors.Wrap(err, "decode recent sheets")
	}
	return list, nil
}
