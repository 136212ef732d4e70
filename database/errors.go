package database

import (
	"errors"
	"fmt"

	"civicdesk/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Classify wraps storage failures the caller may retry with models.ErrTransient.
// Domain errors and nil pass through untouched.
func Classify(err error) error {
	if err == nil || errors.Is(err, models.ErrTransient) {
		return err
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) &&
		(labeled.HasErrorLabel("TransientTransactionError") || labeled.HasErrorLabel("UnknownTransactionCommitResult")) {
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	return err
}
