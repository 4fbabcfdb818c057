//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/Gunvolt24/datapipe/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// UniqUserID — случайный положительный user_id.
func UniqUserID() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(1<<40))
	return n.Int64() + 1
}

// MakePurchase — валидное событие покупки с уникальным sku.
func MakePurchase(opts ...func(*domain.Event)) domain.Event {
	e := domain.Event{
		Name:       domain.EventPurchase,
		UserID:     UniqUserID(),
		Timestamp:  time.Now().Unix(),
		Content:    "sku-" + UniqSuffix(),
		HasContent: true,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// MakeInstall — валидное событие установки.
func MakeInstall() domain.Event {
	return domain.Event{Name: domain.EventInstall, UserID: UniqUserID(), Timestamp: time.Now().Unix()}
}
