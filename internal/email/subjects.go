package email

const (
	subjectLeadAssigned     = "A new lead has been assigned to you"
	subjectFollowUpReminder = "Reminder: a lead is waiting on a first response"
)
