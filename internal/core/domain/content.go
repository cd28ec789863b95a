package domain

import "time"

// Journal is a single journal entry.
type Journal struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Goal is a personal goal with a progress percentage.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
	Progress    int        `json:"progress"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Comment is a reply attached to a Post.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is a community/blog post.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"likedBy,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Achievement is a badge unlocked by the user.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// DayActivity is one bucket of the weekly-activity histogram.
type DayActivity struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Statistics is the aggregate computed by the backend. It is never derived
// locally from the entity lists.
type Statistics struct {
	TotalJournals    int            `json:"totalJournals"`
	TotalGoals       int            `json:"totalGoals"`
	CompletedGoals   int            `json:"completedGoals"`
	CurrentStreak    int            `json:"currentStreak"`
	LongestStreak    int            `json:"longestStreak"`
	MoodDistribution map[string]int `json:"moodDistribution"`
	WeeklyActivity   []DayActivity  `json:"weeklyActivity"`
}

// Dataset is the user's content as held by the data store. Lists are in
// server order with newly created entities first.
type Dataset struct {
	Journals     []Journal     `json:"journals"`
	Goals        []Goal        `json:"goals"`
	Posts        []Post        `json:"posts"`
	Achievements []Achievement `json:"achievements"`
	Statistics   *Statistics   `json:"statistics"`
	IsLoading    bool          `json:"isLoading"`
	Error        string        `json:"error,omitempty"`
}

// IsEmpty reports whether d carries no user content.
func (d Dataset) IsEmpty() bool {
	return len(d.Journals) == 0 && len(d.Goals) == 0 && len(d.Posts) == 0 &&
		len(d.Achievements) == 0 && d.Statistics == nil
}
