package plans

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanAlreadyExists        = errors.New("plan already exists")
	ErrPlanInUse                = errors.New("plan is referenced by subscriptions and cannot be deleted")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load plans")
)
