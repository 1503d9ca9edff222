//go:generate mockgen -source=../kv_store.go     -destination=./mock_kv_store.go     -package=mocks
//go:generate mockgen -source=../cart_service.go -destination=./mock_cart_service.go -package=mocks
//go:generate mockgen -source=../validator.go    -destination=./mock_validator.go    -package=mocks
//go:generate mockgen -source=../logger.go       -destination=./mock_logger.go       -package=mocks
//go:generate mockgen -source=../runner.go       -destination=./mock_runner.go       -package=mocks

package mocks
