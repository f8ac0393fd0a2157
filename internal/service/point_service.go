package service

import (
	"errors"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

// PointCredit 积分入账结果
type PointCredit struct {
	Credited bool
	Amount   int64
	Balance  int64
}

// PointService 积分钱包服务
type PointService struct {
	pointRepo repository.PointRepository
}

// NewPointService 创建积分服务
func NewPointService(pointRepo repository.PointRepository) *PointService {
	return &PointService{pointRepo: pointRepo}
}

// GetBalance 获取积分余额，没有钱包视为 0
func (s *PointService) GetBalance(userID uint) (int64, error) {
	return s.balance(s.pointRepo, userID)
}

// ListHistory 积分流水列表
func (s *PointService) ListHistory(filter repository.PointHistoryListFilter) ([]models.PointHistory, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrOrderNotFound
	}
	filter.Reason = strings.TrimSpace(filter.Reason)
	return s.pointRepo.ListHistory(filter)
}

// SpendInTx 在事务内扣减积分，余额不足返回 ErrPointsInsufficient
func (s *PointService) SpendInTx(tx *gorm.DB, userID uint, amount int64, reference, description string) (int64, error) {
	repo := s.pointRepo.WithTx(tx)
	if amount <= 0 {
		return s.balance(repo, userID)
	}
	rows, err := repo.Debit(userID, amount)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ErrPointsInsufficient
	}
	balance, err := s.balance(repo, userID)
	if err != nil {
		return 0, err
	}
	history := &models.PointHistory{
		UserID:       userID,
		Amount:       -amount,
		BalanceAfter: balance,
		Reason:       constants.PointReasonCheckoutSpend,
		Reference:    reference,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := repo.CreateHistory(history); err != nil {
		return 0, err
	}
	return balance, nil
}

// AddPoints 积分入账，同一 reference 只入账一次，返回入账后的余额
func (s *PointService) AddPoints(tx *gorm.DB, userID uint, amount int64, reason, reference string, orderID *uint, description string) (int64, error) {
	credit, err := s.CreditInTx(tx, userID, amount, reason, reference, orderID, description)
	if err != nil {
		return 0, err
	}
	return credit.Balance, nil
}

// CreditInTx 积分入账并返回是否实际入账
func (s *PointService) CreditInTx(tx *gorm.DB, userID uint, amount int64, reason, reference string, orderID *uint, description string) (*PointCredit, error) {
	repo := s.pointRepo.WithTx(tx)
	if amount <= 0 {
		balance, err := s.balance(repo, userID)
		if err != nil {
			return nil, err
		}
		return &PointCredit{Balance: balance}, nil
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrPointHistoryConflict
	}

	existing, err := repo.GetHistoryByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != userID {
			return nil, ErrPointHistoryConflict
		}
		balance, err := s.balance(repo, userID)
		if err != nil {
			return nil, err
		}
		return &PointCredit{Balance: balance}, nil
	}

	if _, err := repo.EnsureWallet(userID); err != nil {
		return nil, err
	}
	if err := repo.Credit(userID, amount); err != nil {
		return nil, err
	}
	balance, err := s.balance(repo, userID)
	if err != nil {
		return nil, err
	}
	history := &models.PointHistory{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balance,
		Reason:       reason,
		OrderID:      orderID,
		Reference:    reference,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := repo.CreateHistory(history); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPointHistoryConflict
		}
		return nil, err
	}
	return &PointCredit{Credited: true, Amount: amount, Balance: balance}, nil
}

func (s *PointService) balance(repo repository.PointRepository, userID uint) (int64, error) {
	wallet, err := repo.GetWallet(userID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, nil
	}
	return wallet.Balance, nil
}
