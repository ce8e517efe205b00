package application

import (
	"trustbit/domain/interfaces"
)

// UnitOfWork aliases the domain-level unit of work so application code and
// the repository implementation share one definition.
type UnitOfWork = interfaces.UnitOfWork

// UnitOfWorkFactory creates UnitOfWork instances.
type UnitOfWorkFactory = interfaces.UnitOfWorkFactory
