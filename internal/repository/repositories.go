package repository

import "gorm.io/gorm"

// Repositories 汇总全部仓储，在 main 中一次性构建
type Repositories struct {
	Tx            *TxManager
	Users         *UserRepository
	Subscriptions *SubscriptionRepository
	Coupons       *CouponRepository
	Orders        *OrderRepository
	Payments      *PaymentRepository
	Referrals     *ReferralRepository
	Commissions   *CommissionRepository
	Wallets       *WalletRepository
	Withdrawals   *WithdrawalRepository
	Settlements   *SettlementRepository
	Points        *PointsRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tx:            NewTxManager(db),
		Users:         NewUserRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Coupons:       NewCouponRepository(db),
		Orders:        NewOrderRepository(db),
		Payments:      NewPaymentRepository(db),
		Referrals:     NewReferralRepository(db),
		Commissions:   NewCommissionRepository(db),
		Wallets:       NewWalletRepository(db),
		Withdrawals:   NewWithdrawalRepository(db),
		Settlements:   NewSettlementRepository(db),
		Points:        NewPointsRepository(db),
	}
}
