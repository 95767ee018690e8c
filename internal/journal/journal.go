package journal

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"main/internal/schema"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Config defines the postgres connection for the trade journal.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
}

// BracketRecord is one placed bracket order.
type BracketRecord struct {
	ID            string    `gorm:"primaryKey"`
	Symbol        string    `gorm:"index"`
	Side          string
	Quantity      float64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	ClientOrderID string
	Complete      bool
	CreatedAt     time.Time
}

// ClosureRecord is one exchange-detected position closure.
type ClosureRecord struct {
	ID        string    `gorm:"primaryKey"`
	Symbol    string    `gorm:"index"`
	Pnl       float64
	CreatedAt time.Time
}

// Journal persists trade events to postgres. It is an optional sink, not
// recovery state; the engine runs fine without it.
type Journal struct {
	db *gorm.DB
}

// Open connects and migrates the journal tables.
func Open(cfg Config) (*Journal, error) {
	dsn := cfg.dsn()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&BracketRecord{}, &ClosureRecord{}); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// RecordBracket stores a placed bracket.
func (j *Journal) RecordBracket(symbol schema.Symbol, side schema.OrderSide, qty, entry, sl, tp float64, clientOrderID string, complete bool) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&BracketRecord{
		ID:            uuid.New().String(),
		Symbol:        symbol.String(),
		Side:          side.String(),
		Quantity:      qty,
		EntryPrice:    entry,
		StopLoss:      sl,
		TakeProfit:    tp,
		ClientOrderID: clientOrderID,
		Complete:      complete,
		CreatedAt:     time.Now().UTC(),
	}).Error
}

// RecordClosure stores an exchange-detected closure.
func (j *Journal) RecordClosure(symbol schema.Symbol, pnl float64) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&ClosureRecord{
		ID:        uuid.New().String(),
		Symbol:    symbol.String(),
		Pnl:       pnl,
		CreatedAt: time.Now().UTC(),
	}).Error
}

// Close releases the connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (cfg Config) dsn() string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()
	return u.String()
}
