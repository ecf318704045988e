package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

// Ticket and transaction numbers follow the receipt format already printed
// on physical tickets: a prefix plus a second-resolution timestamp.
const numberTimeFormat = "060102150405"

func ticketNumber(now time.Time) string {
	return fmt.Sprintf("PK-%s", now.Format(numberTimeFormat))
}

func barcodeData(plate string, now time.Time) string {
	return fmt.Sprintf("PK-%s-%s", plate, now.Format(numberTimeFormat))
}

func transactionNumber(now time.Time, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("TX-%s", now.Format(numberTimeFormat))
	}
	return fmt.Sprintf("TX-%s-%s", now.Format(numberTimeFormat), suffix)
}

// issueTicket creates the ticket row for an entry. Second-resolution
// timestamps collide when two entries land in the same second, so a
// duplicate is retried once with a suffix from the injected ID generator;
// a second duplicate is surfaced as ErrDuplicateTicket.
func (s *SessionService) issueTicket(ctx context.Context, q database.Queryer, vehicle *models.Vehicle, operatorID string, now time.Time) (*models.ParkingTicket, error) {
	ticket := &models.ParkingTicket{
		TicketNumber: ticketNumber(now),
		BarcodeData:  barcodeData(vehicle.PlateNumber, now),
		IssueTime:    now,
		VehicleID:    vehicle.ID,
		OperatorID:   operatorID,
	}

	err := s.tickets.Insert(ctx, q, ticket)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, apperrors.ErrDuplicateTicket) {
		return nil, err
	}

	suffix := s.idGen()
	ticket.ID = 0
	ticket.TicketNumber = fmt.Sprintf("%s-%s", ticketNumber(now), suffix)
	ticket.BarcodeData = fmt.Sprintf("%s-%s", barcodeData(vehicle.PlateNumber, now), suffix)

	if err := s.tickets.Insert(ctx, q, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}
