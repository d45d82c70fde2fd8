package invoicing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const (
	sessionBucketName = "sessions"
	invoiceBucketName = "invoices"
	metaBucketName    = "meta"

	nextInvoiceNumberKey = "next_invoice_number"
)

// DB defines the interface for database operations
type DB interface {
	// SaveSession saves a session to the database
	SaveSession(session *Session) error

	// GetSession retrieves a session by ID
	GetSession(id string) (*Session, error)

	// LatestSession returns the most recently created session, or nil if there is none
	LatestSession() (*Session, error)

	// SaveInvoice records an issued invoice
	SaveInvoice(issued *IssuedInvoice) error

	// GetInvoice retrieves an issued invoice by ID
	GetInvoice(id string) (*IssuedInvoice, error)

	// ListInvoices returns all issued invoices
	ListInvoices() ([]*IssuedInvoice, error)

	// NextInvoiceNumber returns the number suggested for the next session
	NextInvoiceNumber() (int, error)

	// AdvanceInvoiceNumber moves the next number past an issued number and
	// returns it. Lower numbers leave it unchanged.
	AdvanceInvoiceNumber(issued int) (int, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{sessionBucketName, invoiceBucketName, metaBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSession saves a session to the database
func (b *BoltDB) SaveSession(session *Session) error {
	return b.put(sessionBucketName, session.ID, session)
}

// GetSession retrieves a session by ID
func (b *BoltDB) GetSession(id string) (*Session, error) {
	var session *Session
	if err := b.get(sessionBucketName, id, &session); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return session, nil
}

// LatestSession returns the most recently created session, or nil if there is none
func (b *BoltDB) LatestSession() (*Session, error) {
	var latest *Session
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var session Session
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("unmarshaling session: %w", err)
			}
			if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
				latest = &session
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// SaveInvoice records an issued invoice
func (b *BoltDB) SaveInvoice(issued *IssuedInvoice) error {
	return b.put(invoiceBucketName, issued.ID, issued)
}

// GetInvoice retrieves an issued invoice by ID
func (b *BoltDB) GetInvoice(id string) (*IssuedInvoice, error) {
	var issued *IssuedInvoice
	if err := b.get(invoiceBucketName, id, &issued); err != nil {
		return nil, fmt.Errorf("invoice %s: %w", id, err)
	}
	return issued, nil
}

// ListInvoices returns all issued invoices
func (b *BoltDB) ListInvoices() ([]*IssuedInvoice, error) {
	invoices := make([]*IssuedInvoice, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var issued IssuedInvoice
			if err := json.Unmarshal(v, &issued); err != nil {
				return fmt.Errorf("unmarshaling invoice: %w", err)
			}
			invoices = append(invoices, &issued)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// NextInvoiceNumber returns the stored next number, or 1 on a fresh database
func (b *BoltDB) NextInvoiceNumber() (int, error) {
	var next int
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		next, err = readNextInvoiceNumber(tx.Bucket([]byte(metaBucketName)))
		return err
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// AdvanceInvoiceNumber reads, compares and writes the next number in one
// transaction so concurrent renders cannot move it backwards
func (b *BoltDB) AdvanceInvoiceNumber(issued int) (int, error) {
	var next int
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucketName))
		current, err := readNextInvoiceNumber(bucket)
		if err != nil {
			return err
		}
		next = max(current, issued+1)
		if next == current {
			return nil
		}
		return bucket.Put([]byte(nextInvoiceNumberKey), []byte(strconv.Itoa(next)))
	})
	if err != nil {
		return 0, fmt.Errorf("advancing invoice number: %w", err)
	}
	return next, nil
}

func readNextInvoiceNumber(bucket *bbolt.Bucket) (int, error) {
	data := bucket.Get([]byte(nextInvoiceNumberKey))
	if data == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("parsing next invoice number: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) put(bucketName, id string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucketName, err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(id), data)
	})
}

func (b *BoltDB) get(bucketName, id string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, v)
	})
}
