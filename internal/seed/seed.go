package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"gorm.io/gorm"
)

const demoRoomCount = 5

var demoGuests = []string{"Asha Rao", "Vikram Shah", "Meera Iyer", "Rohan Das", "Kavya Nair"}

// EnsureDemoFloor seeds rooms 101..105 with one open booking each, checked
// in the day before now. It does nothing when any room already exists.
func EnsureDemoFloor(db *gorm.DB, now time.Time) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return 0, err
	}

	ctx := context.Background()
	created := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&domain.Resource{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		now = now.UTC()
		checkIn := now.Add(-24 * time.Hour)
		for i := 0; i < demoRoomCount; i++ {
			room := domain.Resource{
				ID:          node.Generate(),
				DisplayName: fmt.Sprintf("%d", 101+i),
				Type:        "room",
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Create(&room).Error; err != nil {
				return err
			}

			arrived := checkIn.Add(time.Duration(i) * time.Hour)
			booking := domain.Booking{
				ID:            node.Generate(),
				ResourceID:    room.ID,
				GuestName:     demoGuests[i%len(demoGuests)],
				GuestMobile:   fmt.Sprintf("+9198765432%02d", i),
				CheckIn:       arrived,
				ActualCheckIn: &arrived,
				Status:        domain.BookingStatusBooked,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&booking).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
