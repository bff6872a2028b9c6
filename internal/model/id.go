package model

import (
	"github.com/google/uuid"
)

// newID 生成主键，已赋值时保留原值
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
