package model

// Student is a roster entry as returned by the class and subject lookups.
type Student struct {
	ID        string `json:"id"`
	UIN       string `json:"uin"`
	FullName  string `json:"full_name"`
	ClassName string `json:"class_name,omitempty"`
}

// SheetRow is one parsed line of an uploaded score sheet.
type SheetRow struct {
	StudentID string `json:"student_id"`
	UIN       string `json:"uin"`
	Scores    Scores `json:"scores"`
}
