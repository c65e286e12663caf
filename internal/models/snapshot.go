package models

import (
	"sort"
	"time"
)

// SlotContext identifies the slot an engine operation is working on.
type SlotContext struct {
	Date            time.Time `json:"date"`
	Day             int       `json:"day"`
	Period          int       `json:"period"`
	ClassID         string    `json:"class_id"`
	Subject         string    `json:"subject,omitempty"`
	AbsentTeacherID string    `json:"absent_teacher_id,omitempty"`
}

// Key returns the composite slot key.
func (s SlotContext) Key() SlotKey {
	return SlotKey{Date: s.Date, ClassID: s.ClassID, Period: s.Period}
}

type teacherPeriod struct {
	teacherID string
	period    int
}

// ScheduleSnapshot is the immutable input every engine entry point
// consumes: one consistent read of the day's timetable, roster, absences
// and commitments. Callers build it once per run; engine passes never
// reach back into storage.
type ScheduleSnapshot struct {
	Date    time.Time
	Day     int
	Lessons []Lesson
	Staff   []Staff
	Classes []Class
	Pool    []PoolEntry

	absent    map[string]struct{}
	committed map[int]map[string]struct{}
	counts    map[string]int

	byTeacherPeriod map[teacherPeriod]int
	byClass         map[string][]int
	teachesToday    map[string]bool
	onCall          map[string]bool
	staffByID       map[string]int
	classByID       map[string]int
}

// NewScheduleSnapshot indexes the supplied collections. The lessons slice
// is filtered to the snapshot's day of week; roster order is preserved for
// deterministic tie-breaking.
func NewScheduleSnapshot(
	date time.Time,
	lessons []Lesson,
	staff []Staff,
	classes []Class,
	absentTeacherIDs []string,
	pool []PoolEntry,
	substitutionCounts map[string]int,
) *ScheduleSnapshot {
	day := int(date.Weekday())
	if day == 0 {
		day = 7
	}

	snap := &ScheduleSnapshot{
		Date:            date,
		Day:             day,
		Staff:           staff,
		Classes:         classes,
		Pool:            pool,
		absent:          make(map[string]struct{}, len(absentTeacherIDs)),
		committed:       make(map[int]map[string]struct{}),
		counts:          make(map[string]int, len(substitutionCounts)),
		byTeacherPeriod: make(map[teacherPeriod]int),
		byClass:         make(map[string][]int),
		teachesToday:    make(map[string]bool),
		onCall:          make(map[string]bool),
		staffByID:       make(map[string]int, len(staff)),
		classByID:       make(map[string]int, len(classes)),
	}

	for _, id := range absentTeacherIDs {
		snap.absent[id] = struct{}{}
	}
	for id, count := range substitutionCounts {
		snap.counts[id] = count
	}
	for i := range staff {
		snap.staffByID[staff[i].ID] = i
	}
	for i := range classes {
		snap.classByID[classes[i].ID] = i
	}
	for _, entry := range pool {
		if entry.Source == PoolSourceOnCall {
			snap.onCall[entry.TeacherID] = true
		}
	}

	for _, lesson := range lessons {
		if lesson.DayOfWeek != day {
			continue
		}
		snap.Lessons = append(snap.Lessons, lesson)
	}
	for i, lesson := range snap.Lessons {
		key := teacherPeriod{teacherID: lesson.TeacherID, period: lesson.Period}
		if _, exists := snap.byTeacherPeriod[key]; !exists {
			snap.byTeacherPeriod[key] = i
		}
		snap.byClass[lesson.ClassID] = append(snap.byClass[lesson.ClassID], i)
		snap.teachesToday[lesson.TeacherID] = true
	}
	for classID := range snap.byClass {
		idx := snap.byClass[classID]
		sort.SliceStable(idx, func(a, b int) bool {
			return snap.Lessons[idx[a]].Period < snap.Lessons[idx[b]].Period
		})
	}

	return snap
}

// LessonOf returns what the teacher is scheduled to do during the period,
// or nil when the period is free.
func (s *ScheduleSnapshot) LessonOf(teacherID string, period int) *Lesson {
	if i, ok := s.byTeacherPeriod[teacherPeriod{teacherID: teacherID, period: period}]; ok {
		return &s.Lessons[i]
	}
	return nil
}

// ClassLessons returns the class's lessons for the day sorted by period.
func (s *ScheduleSnapshot) ClassLessons(classID string) []Lesson {
	idx := s.byClass[classID]
	lessons := make([]Lesson, 0, len(idx))
	for _, i := range idx {
		lessons = append(lessons, s.Lessons[i])
	}
	return lessons
}

// ClassLessonAt returns the class's lesson in the given period, if any.
func (s *ScheduleSnapshot) ClassLessonAt(classID string, period int) *Lesson {
	for _, i := range s.byClass[classID] {
		if s.Lessons[i].Period == period {
			return &s.Lessons[i]
		}
	}
	return nil
}

// TeachesToday reports whether the teacher has at least one lesson on the
// snapshot's day, i.e. is physically on-site.
func (s *ScheduleSnapshot) TeachesToday(teacherID string) bool {
	return s.teachesToday[teacherID]
}

// OnCallToday reports whether the teacher is listed in the date's reserve
// pool without having lessons of their own.
func (s *ScheduleSnapshot) OnCallToday(teacherID string) bool {
	return s.onCall[teacherID]
}

// IsAbsent reports whether the teacher is in the absent set for the date.
func (s *ScheduleSnapshot) IsAbsent(teacherID string) bool {
	_, ok := s.absent[teacherID]
	return ok
}

// IsCommitted reports whether the teacher is already committed elsewhere
// in the exact period (cross-class lock).
func (s *ScheduleSnapshot) IsCommitted(period int, teacherID string) bool {
	if set, ok := s.committed[period]; ok {
		_, locked := set[teacherID]
		return locked
	}
	return false
}

// Lock marks the teacher as committed for the period. Batch runs call this
// after each proposal so accepting one candidate shrinks the pool for the
// remaining slots of the same period.
func (s *ScheduleSnapshot) Lock(period int, teacherID string) {
	if s.committed[period] == nil {
		s.committed[period] = make(map[string]struct{})
	}
	s.committed[period][teacherID] = struct{}{}
}

// DailyCount returns the teacher's substitution count for the date.
func (s *ScheduleSnapshot) DailyCount(teacherID string) int {
	return s.counts[teacherID]
}

// StaffByID resolves a roster entry.
func (s *ScheduleSnapshot) StaffByID(id string) *Staff {
	if i, ok := s.staffByID[id]; ok {
		return &s.Staff[i]
	}
	return nil
}

// ClassByID resolves a class.
func (s *ScheduleSnapshot) ClassByID(id string) *Class {
	if i, ok := s.classByID[id]; ok {
		return &s.Classes[i]
	}
	return nil
}
