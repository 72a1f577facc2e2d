package postgres

// Statements shared by the pgx repository. Ties on created_at are broken by
// application_id so batches are deterministic.
const (
	resetAssignmentsSQL = `UPDATE applications SET assigned_to = NULL`

	assignOldestUnassignedSQL = `
		UPDATE applications
		SET assigned_to = $1
		WHERE application_id IN (
			SELECT application_id FROM applications
			WHERE assigned_to IS NULL
			ORDER BY created_at, application_id
			LIMIT $2
		)
		RETURNING application_id::text, created_at
	`

	countByAssigneeSQL = `
		SELECT assigned_to::text, COUNT(*)
		FROM applications
		GROUP BY assigned_to
		ORDER BY assigned_to NULLS LAST
	`
)
