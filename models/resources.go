package models

import "time"

// TeamMember is a staff member shown on the team page.
type TeamMember struct {
	Base
	Name        string `gorm:"size:128;not null" json:"name" binding:"required"`
	Role        string `gorm:"size:128" json:"role"`
	Bio         string `gorm:"type:text" json:"bio"`
	PhotoURL    string `gorm:"size:1024" json:"photo_url"`
	LinkedInURL string `gorm:"size:512" json:"linkedin_url"`
	SortOrder   int    `gorm:"index;default:0" json:"sort_order"`
	Published   bool   `gorm:"index;default:false" json:"published"`
}

func (m *TeamMember) Normalize() {
	trimAll(&m.Name, &m.Role, &m.PhotoURL, &m.LinkedInURL)
}

// Mentor advises startups in the center's programs.
type Mentor struct {
	Base
	Name        string `gorm:"size:128;not null" json:"name" binding:"required"`
	Title       string `gorm:"size:128" json:"title"`
	Company     string `gorm:"size:128" json:"company"`
	Expertise   string `gorm:"size:512" json:"expertise"`
	Bio         string `gorm:"type:text" json:"bio"`
	PhotoURL    string `gorm:"size:1024" json:"photo_url"`
	LinkedInURL string `gorm:"size:512" json:"linkedin_url"`
	SortOrder   int    `gorm:"index;default:0" json:"sort_order"`
	Published   bool   `gorm:"index;default:false" json:"published"`
}

func (m *Mentor) Normalize() {
	trimAll(&m.Name, &m.Title, &m.Company, &m.Expertise, &m.PhotoURL, &m.LinkedInURL)
}

// Program is an incubation or acceleration program.
type Program struct {
	Base
	Slug           string     `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Title          string     `gorm:"size:255;not null" json:"title" binding:"required"`
	Summary        string     `gorm:"size:512" json:"summary"`
	Description    string     `gorm:"type:text" json:"description"`
	ImageURL       string     `gorm:"size:1024" json:"image_url"`
	ApplicationURL string     `gorm:"size:512" json:"application_url"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Published      bool       `gorm:"index;default:false" json:"published"`
}

func (p *Program) Normalize() {
	trimAll(&p.Slug, &p.Title, &p.Summary, &p.ImageURL, &p.ApplicationURL)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	} else {
		p.Slug = Slugify(p.Slug)
	}
}

func (p *Program) HTMLFields() []*string { return []*string{&p.Description} }

func (p *Program) SlugValue() string { return p.Slug }

// Startup is a company incubated by the center.
type Startup struct {
	Base
	Name        string `gorm:"size:128;not null" json:"name" binding:"required"`
	Slug        string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Tagline     string `gorm:"size:255" json:"tagline"`
	Description string `gorm:"type:text" json:"description"`
	LogoURL     string `gorm:"size:1024" json:"logo_url"`
	Website     string `gorm:"size:512" json:"website"`
	Industry    string `gorm:"size:64;index" json:"industry"`
	FoundedYear int    `json:"founded_year"`
	Published   bool   `gorm:"index;default:false" json:"published"`
}

func (s *Startup) Normalize() {
	trimAll(&s.Name, &s.Slug, &s.Tagline, &s.LogoURL, &s.Website, &s.Industry)
	if s.Slug == "" {
		s.Slug = Slugify(s.Name)
	} else {
		s.Slug = Slugify(s.Slug)
	}
}

func (s *Startup) HTMLFields() []*string { return []*string{&s.Description} }

func (s *Startup) SlugValue() string { return s.Slug }

// Event is a workshop, demo day or meetup.
type Event struct {
	Base
	Title           string     `gorm:"size:255;not null" json:"title" binding:"required"`
	Slug            string     `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Description     string     `gorm:"type:text" json:"description"`
	Location        string     `gorm:"size:255" json:"location"`
	ImageURL        string     `gorm:"size:1024" json:"image_url"`
	StartsAt        time.Time  `gorm:"index" json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	RegistrationURL string     `gorm:"size:512" json:"registration_url"`
	Published       bool       `gorm:"index;default:false" json:"published"`
}

func (e *Event) Normalize() {
	trimAll(&e.Title, &e.Slug, &e.Location, &e.ImageURL, &e.RegistrationURL)
	if e.Slug == "" {
		e.Slug = Slugify(e.Title)
	} else {
		e.Slug = Slugify(e.Slug)
	}
}

func (e *Event) HTMLFields() []*string { return []*string{&e.Description} }

func (e *Event) SlugValue() string { return e.Slug }

// BlogPost is an article written in the admin rich-text editor.
type BlogPost struct {
	Base
	Title       string     `gorm:"size:255;not null" json:"title" binding:"required"`
	Slug        string     `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Excerpt     string     `gorm:"size:512" json:"excerpt"`
	Content     string     `gorm:"type:text" json:"content"`
	CoverURL    string     `gorm:"size:1024" json:"cover_url"`
	Author      string     `gorm:"size:128" json:"author"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	Published   bool       `gorm:"index;default:false" json:"published"`
}

func (b *BlogPost) Normalize() {
	trimAll(&b.Title, &b.Slug, &b.Excerpt, &b.CoverURL, &b.Author)
	if b.Slug == "" {
		b.Slug = Slugify(b.Title)
	} else {
		b.Slug = Slugify(b.Slug)
	}
	if b.Published && b.PublishedAt == nil {
		now := time.Now().UTC()
		b.PublishedAt = &now
	}
}

func (b *BlogPost) HTMLFields() []*string { return []*string{&b.Content} }

func (b *BlogPost) SlugValue() string { return b.Slug }
