package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// DefaultPassword is the password every seeded login uses, matching the
// dev profile of the real service.
const DefaultPassword = "fun123"

var (
	departments = []string{"Engineering", "Sales", "Marketing", "Finance", "Human Resources"}
	positions   = []string{"Engineer", "Manager", "Analyst", "Director", "Associate"}
	roles       = []string{"ROLE_EMPLOYEE", "ROLE_MANAGER", "ROLE_ADMIN"}
)

// NewUserID mints an identifier in the same shape the real seeder uses.
func NewUserID() string {
	return "EMP-" + strings.ToUpper(uuid.New().String()[:8])
}

// Seed populates the server with n generated employees, each with a login
// and a random role. The seed pins the dataset for reproducible runs.
func (s *Server) Seed(n int, seed int64) {
	faker := gofakeit.New(uint64(seed))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		first := faker.FirstName()
		last := faker.LastName()
		email := fmt.Sprintf("%s.%s%d@gmail.com", strings.ToLower(first), strings.ToLower(last), i)
		id := NewUserID()

		s.employees[id] = Employee{
			UserID:     id,
			FirstName:  first,
			LastName:   last,
			Email:      email,
			Department: departments[faker.Number(0, len(departments)-1)],
			Position:   positions[faker.Number(0, len(positions)-1)],
			Salary:     float64(faker.Number(30000, 150000)),
		}
		s.users[id] = user{
			Password: DefaultPassword,
			Role:     roles[faker.Number(0, len(roles)-1)],
			Email:    email,
		}
	}
}

// WriteUserDetails writes the identity directory file the harness reads,
// in the same keyed-by-id shape the real seeder produces.
func (s *Server) WriteUserDetails(path string) error {
	s.mu.RLock()
	out := make(map[string]map[string]string, len(s.users))
	for id, u := range s.users {
		out[id] = map[string]string{
			"email":    u.Email,
			"password": u.Password,
			"role":     u.Role,
		}
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
