package service

import (
	"context"
	"fmt"
	"time"

	apperrors "parkir/internal/errors"
	"parkir/internal/models"
	"parkir/internal/search"
)

// TransactionService serves the completed-transaction search endpoint from
// the Elasticsearch index.
type TransactionService struct {
	es *search.ElasticsearchClient
}

func NewTransactionService(es *search.ElasticsearchClient) *TransactionService {
	return &TransactionService{es: es}
}

func (s *TransactionService) Search(ctx context.Context, plate string, from, to *time.Time, page, pageSize int) (*models.SearchTransactionsResponse, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("search range end precedes start: %w", apperrors.ErrValidation)
	}
	if s.es == nil {
		return nil, fmt.Errorf("transaction search is not configured: %w", apperrors.ErrValidation)
	}
	return s.es.Search(ctx, plate, from, to, page, pageSize)
}
