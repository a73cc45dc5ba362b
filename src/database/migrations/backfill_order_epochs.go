package migrations

import (
	"fmt"

	"ordersapi/src/model"
	"ordersapi/src/utils"

	"gorm.io/gorm"
)

// backfillOrderEpochs derives epoch_seconds, epoch_milli and created_at_local for
// orders written before those columns existed, so the epoch cursor sees them.
func backfillOrderEpochs(db *gorm.DB) error {
	var orders []model.Order
	if err := db.Where("epoch_milli = ? OR epoch_milli IS NULL", 0).Find(&orders).Error; err != nil {
		return fmt.Errorf("load orders without epoch: %w", err)
	}

	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}

		updates := map[string]interface{}{
			"epoch_seconds": o.CreatedAt.Unix(),
			"epoch_milli":   o.CreatedAt.UnixMilli(),
		}
		if o.CreatedAtLocal == "" {
			if local := utils.ToReadableDate(&o.CreatedAt); local != nil {
				updates["created_at_local"] = *local
			}
		}

		if err := db.Model(&model.Order{}).Where("doc_id = ?", o.DocID).Updates(updates).Error; err != nil {
			return fmt.Errorf("backfill order %s: %w", o.OrderID, err)
		}
	}

	return nil
}
