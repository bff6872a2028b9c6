package model

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Subscription{},
		&PaymentOrder{},
		&Payment{},
		&Coupon{},
		&Referral{},
		&Commission{},
		&Wallet{},
		&WithdrawalRequest{},
		&SettlementTask{},
		&Video{},
		&WatchProgress{},
		&PointsTransaction{},
	}
}
