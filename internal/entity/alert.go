package entity

import (
	"time"
)

// AlertRecord 已投递告警的留痕记录, 仅用于审计, 引擎状态不依赖它
type AlertRecord struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Recipient int64  `gorm:"index"`
	EntityID  string `gorm:"index"`
	Kind      string `gorm:"index"` // alert_new / alert_changed
	Message   string
	MessageID int64
	CreatedAt time.Time `gorm:"index"`
}
