package models

// ImportRow enrolls one respondent in an administration. TargetEmail is set
// on 360 rows and names the subject this respondent rates; it must resolve
// to a user that exists or is created by the same import.
type ImportRow struct {
	Email       string `json:"email" yaml:"email"`
	Name        string `json:"name" yaml:"name"`
	GroupID     *int   `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	TargetEmail string `json:"target_email,omitempty" yaml:"target_email,omitempty"`
}

// ImportRequest applies one externally validated bulk upload: every row
// becomes an assignment under the same survey id, with missing users created
// on the way.
type ImportRequest struct {
	ClientID     int         `json:"client_id" yaml:"client_id"`
	AssessmentID int         `json:"assessment_id" yaml:"assessment_id"`
	SurveyID     string      `json:"survey_id" yaml:"survey_id"`
	Rows         []ImportRow `json:"rows" yaml:"rows"`
}

// ImportResult summarizes what an import changed
type ImportResult struct {
	UsersCreated       int `json:"users_created" yaml:"users_created"`
	UsersExisting      int `json:"users_existing" yaml:"users_existing"`
	AssignmentsCreated int `json:"assignments_created" yaml:"assignments_created"`
	InvitationsSent    int `json:"invitations_sent" yaml:"invitations_sent"`
}
