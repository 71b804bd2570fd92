/*
GroovTube Core
Copyright (c) 2026 The GroovTube Core Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of GroovTube Core.

GroovTube Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GroovTube Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GroovTube Core.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package reportdb persists finished measurement reports in a bbolt file.
package reportdb

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/breath"
	bolt "go.etcd.io/bbolt"
)

const (
	DBFile        = "reports.db"
	BucketReports = "reports"
)

var ErrNotFound = errors.New("report not found")

type Database struct {
	bdb *bolt.DB
}

func Open(path string) (*Database, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists([]byte(BucketReports))
		return err //nolint:wrapcheck // wrapped below
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create reports bucket: %w", err)
	}

	return &Database{bdb: db}, nil
}

func (d *Database) Close() error {
	if err := d.bdb.Close(); err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}
	return nil
}

// Put stores r under its ID, replacing any report with the same ID.
func (d *Database) Put(r *breath.Report) error {
	if r.ID == "" {
		return errors.New("report has no id")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = d.bdb.Update(func(txn *bolt.Tx) error {
		return txn.Bucket([]byte(BucketReports)).Put([]byte(r.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (d *Database) Get(id string) (breath.Report, error) {
	var r breath.Report
	err := d.bdb.View(func(txn *bolt.Tx) error {
		v := txn.Bucket([]byte(BucketReports)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("failed to unmarshal report data: %w", err)
		}
		return nil
	})
	if err != nil {
		return breath.Report{}, fmt.Errorf("failed to view bolt database: %w", err)
	}
	return r, nil
}

// List returns every stored report, newest first.
func (d *Database) List() ([]breath.Report, error) {
	rs := make([]breath.Report, 0)

	err := d.bdb.View(func(txn *bolt.Tx) error {
		return txn.Bucket([]byte(BucketReports)).ForEach(func(k, v []byte) error {
			var r breath.Report
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal report %s: %w", k, err)
			}
			rs = append(rs, r)
			return nil
		})
	})
	if err != nil {
		return rs, fmt.Errorf("failed to view bolt database: %w", err)
	}

	slices.SortFunc(rs, func(a, b breath.Report) int {
		return cmp.Or(b.StartedAt.Compare(a.StartedAt), cmp.Compare(a.ID, b.ID))
	})
	return rs, nil
}

func (d *Database) Delete(id string) error {
	err := d.bdb.Update(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(BucketReports))
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
