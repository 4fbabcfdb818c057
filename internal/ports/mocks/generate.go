//go:generate mockgen -source=../message_source.go       -destination=./mock_message_source.go       -package=mocks
//go:generate mockgen -source=../publisher.go            -destination=./mock_publisher.go            -package=mocks
//go:generate mockgen -source=../bulk_loader.go          -destination=./mock_bulk_loader.go          -package=mocks
//go:generate mockgen -source=../validator.go            -destination=./mock_validator.go            -package=mocks
//go:generate mockgen -source=../event_ingest_service.go -destination=./mock_event_ingest_service.go -package=mocks

package mocks
