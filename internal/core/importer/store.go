// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"time"
)

// # Import Record Data Access

// RecordRepository persists import records and guards their state machine.
type RecordRepository interface {

	/*
		Create inserts a new record. Timestamps are set by the store.

		Parameters:
		  - context: context.Context
		  - record: *Record (ID must be pre-assigned)

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, record *Record) error

	/*
		FindByID loads a record.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Record: The record
		  - error: apperr.NotFound if absent
	*/
	FindByID(context context.Context, id string) (*Record, error)

	/*
		Transition applies a status change only if the record is in one of change.From.

		Parameters:
		  - context: context.Context
		  - id: string
		  - change: Transition

		Returns:
		  - *Record: The updated record
		  - error: apperr.NotFound, apperr.InvalidTransition if the guard failed
	*/
	Transition(context context.Context, id string, change Transition) (*Record, error)

	/*
		FailStale fails every record stuck in processing since before cutoff, and
		every pending or uploading record created before cutoff.

		Parameters:
		  - context: context.Context
		  - cutoff: time.Time
		  - message: string (Stored as errorMessage)

		Returns:
		  - []string: IDs of the failed records
		  - error: Storage failures
	*/
	FailStale(context context.Context, cutoff time.Time, message string) ([]string, error)
}
