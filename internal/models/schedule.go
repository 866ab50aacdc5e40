package models

// ScheduleSlot is one timetable period. Times are wall-clock values in
// "HH:MM" 24-hour form; SlotOrder supports adjacency checks within a day.
type ScheduleSlot struct {
	ID        string `db:"id" json:"id"`
	DayOfWeek string `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	SlotOrder int    `db:"slot_order" json:"slot_order"`
}

// ScheduleAssignment binds an activity group to one of its slots; a group
// may occupy several slots, e.g. two consecutive periods.
type ScheduleAssignment struct {
	AvailableCourseScheduleID string `db:"available_course_schedule_id" json:"available_course_schedule_id"`
	ScheduleSlotID            string `db:"schedule_slot_id" json:"schedule_slot_id"`
}

// GroupSlot is a slot joined with the activity group occupying it.
type GroupSlot struct {
	AvailableCourseScheduleID string `db:"available_course_schedule_id" json:"available_course_schedule_id"`
	ScheduleSlot
}

// SlotConflict reports the first overlapping day/time pair found.
type SlotConflict struct {
	DayOfWeek         string `json:"day_of_week"`
	ExistingStartTime string `json:"existing_start_time"`
	ExistingEndTime   string `json:"existing_end_time"`
	RequestedStart    string `json:"requested_start_time"`
	RequestedEnd      string `json:"requested_end_time"`
}

// TimetableEntry is one row of a student's reserved weekly timetable.
type TimetableEntry struct {
	CourseCode   string       `db:"course_code" json:"course_code"`
	CourseTitle  string       `db:"course_title" json:"course_title"`
	ActivityType ActivityType `db:"activity_type" json:"activity_type"`
	GroupNo      int          `db:"group_no" json:"group_no"`
	Location     *string      `db:"location" json:"location,omitempty"`
	DayOfWeek    string       `db:"day_of_week" json:"day_of_week"`
	StartTime    string       `db:"start_time" json:"start_time"`
	EndTime      string       `db:"end_time" json:"end_time"`
}
