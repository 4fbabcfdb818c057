//go:generate mockgen -source=../source.go    -destination=./mock_reader.go -package=mocks
//go:generate mockgen -source=../publisher.go -destination=./mock_writer.go -package=mocks

package mocks
