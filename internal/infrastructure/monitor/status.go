package monitor

import "time"

type ServiceStatus struct {
	Online   bool   `json:"online"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type Status struct {
	Services   map[string]ServiceStatus `json:"services"`
	Buffer     bool                     `json:"buffer"`
	BufferSize int                      `json:"buffer_size"`
	LastCheck  time.Time                `json:"last_check"`
}

// Healthy is false before the first check and whenever a critical dependency failed.
func (s Status) Healthy() bool {
	if s.LastCheck.IsZero() {
		return false
	}
	for _, svc := range s.Services {
		if svc.Critical && !svc.Online {
			return false
		}
	}
	return true
}

func (s Status) clone() Status {
	out := s
	out.Services = make(map[string]ServiceStatus, len(s.Services))
	for name, svc := range s.Services {
		out.Services[name] = svc
	}
	return out
}
