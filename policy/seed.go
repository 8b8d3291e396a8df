package policy

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// LoadDir reads policy files from fsys and returns them by store key.
// The layout is
//
//	TENANT/USER.yaml     a user's policy
//	TENANT/default.yaml  the tenant's default policy
//	USER.yaml            a tenant-less rate-limit policy
//
// Files may end in .json, .yaml or .yml. Other files, hidden entries and
// deeper directories are skipped. Two files naming the same key are an error.
func LoadDir(fsys fs.FS) (map[string]*Policy, error) {
	docs := make(map[string]*Policy)
	sources := make(map[string]string)

	add := func(key, name string) error {
		if prev, dup := sources[key]; dup {
			return fmt.Errorf("policy: %s and %s both define %s", prev, name, key)
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		p, err := ParseAny(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		docs[key], sources[key] = p, name
		return nil
	}

	top, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	for _, entry := range top {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !entry.IsDir() {
			if user, ok := policyStem(entry.Name()); ok {
				if err := add(RateLimitKey(user), entry.Name()); err != nil {
					return nil, err
				}
			}
			continue
		}

		tenant := entry.Name()
		files, err := fs.ReadDir(fsys, tenant)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			user, ok := policyStem(f.Name())
			if !ok {
				continue
			}
			if err := add(UserKey(tenant, user), path.Join(tenant, f.Name())); err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

// Seed writes every document to store in key order.
func Seed(ctx context.Context, store *KVStore, docs map[string]*Policy) error {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := store.Put(ctx, k, docs[k]); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}
	return nil
}

func policyStem(name string) (string, bool) {
	ext := path.Ext(name)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return "", false
	}
	stem := strings.TrimSuffix(name, ext)
	return stem, stem != ""
}
