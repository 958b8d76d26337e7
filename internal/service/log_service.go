package service

import (
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/requestlog"
)

// LogService reads the request log.
type LogService struct {
	log *requestlog.Log
}

// NewLogService creates a new LogService.
func NewLogService(log *requestlog.Log) *LogService {
	return &LogService{log: log}
}

// GetEntries returns the half-open page [offset, offset+limit) of the log,
// oldest first.
func (s *LogService) GetEntries(offset, limit int) model.RequestLogPage {
	return model.RequestLogPage{
		Entries: s.log.Entries(offset, limit),
		Offset:  offset,
		Limit:   limit,
		Total:   s.log.Len(),
	}
}

// GetEntry returns a single entry by id.
func (s *LogService) GetEntry(id string) (model.RequestLogEntry, bool) {
	return s.log.Find(id)
}
