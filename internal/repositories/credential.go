package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
)

var _ models.Repository[*models.Credential] = (*CredentialRepository)(nil)

// ErrCredentialNotFound is returned when no login is stored for the requested key.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository implements [models.Repository] for [models.Credential] persistence.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const credentialColumns = `id, server, username, access_token, token_type, created_at, updated_at`

// Create inserts a new credential with generated ID and sequence
func (r *CredentialRepository) Create(c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "credentials")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO credentials (id, sequence, server, username, access_token, token_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, id, sequence, c.Server(), c.Username(), c.AccessToken(), c.TokenType(), c.CreatedAt(), c.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	c.SetID(id)
	return nil
}

// Get retrieves a credential by ID
func (r *CredentialRepository) Get(id string) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`
	c, err := scanCredential(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	return c, err
}

// Update replaces the username and token of an existing credential
func (r *CredentialRepository) Update(c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.Exec(`
		UPDATE credentials
		SET username = ?, access_token = ?, token_type = ?, updated_at = ?
		WHERE id = ?
	`, c.Username(), c.AccessToken(), c.TokenType(), now, c.ID())
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	if err := expectRow(result, c.ID()); err != nil {
		return err
	}
	c.SetUpdatedAt(now)
	return nil
}

// Delete removes a credential by ID
func (r *CredentialRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves all credentials matching the given criteria ("server", "username")
func (r *CredentialRepository) List(criteria map[string]any) ([]*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE 1 = 1`
	args := []any{}

	if server, ok := criteria["server"].(string); ok && server != "" {
		query += " AND server = ?"
		args = append(args, strings.TrimRight(server, "/"))
	}
	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Save stores c as the active login for its server, replacing any previous one.
func (r *CredentialRepository) Save(c *models.Credential) error {
	existing, err := r.Current(c.Server())
	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return r.Create(c)
	case err != nil:
		return err
	}

	c.SetID(existing.ID())
	c.SetCreatedAt(existing.CreatedAt())
	return r.Update(c)
}

// Current returns the active login for server.
func (r *CredentialRepository) Current(server string) (*models.Credential, error) {
	server = strings.TrimRight(server, "/")
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE server = ?`
	c, err := scanCredential(r.db.QueryRow(query, server))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no login for %s", ErrCredentialNotFound, server)
	}
	return c, err
}

// DeleteForServer removes the active login for server. Missing logins are not an error.
func (r *CredentialRepository) DeleteForServer(server string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM credentials WHERE server = ?`, strings.TrimRight(server, "/"))
	if err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		id, server, username, token, tokenType string
		createdAt, updatedAt                   time.Time
	)
	if err := row.Scan(&id, &server, &username, &token, &tokenType, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	c := models.NewCredential(server, username, token, tokenType)
	c.SetID(id)
	c.SetCreatedAt(createdAt)
	c.SetUpdatedAt(updatedAt)
	return c, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	return nil
}
