package repository

import "context"

// TxManager выполняет fn в одной транзакции БД. Репозитории, вызванные
// с переданным контекстом, работают внутри этой транзакции.
// Вложенный вызов переиспользует уже открытую транзакцию.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
