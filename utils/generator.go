package utils

import (
	"math/rand"
	"time"

	"github.com/wirelesstrade/rent_portal/models"
	"gorm.io/gorm"
)

const referenceSuffixLength = 8
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePaymentReference returns a fresh RP-XXXXXXXX reference not yet used
// by any rent period.
func GeneratePaymentReference(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, referenceSuffixLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		reference := "RP-" + string(b)

		var period models.RentPeriod
		err := tx.Where("payment_reference = ?", reference).First(&period).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return reference, nil
			}
			return "", err
		}
	}
}
