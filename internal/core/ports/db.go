package ports

import (
	"github.com/solstream/swapd/internal/core/domain"
)

// RepoManager gives access to the repositories of the durable record store.
type RepoManager interface {
	OrderRepository() domain.OrderRepository

	Close()
}
