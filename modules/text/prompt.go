package text

// Section - a portfolio section whose copy is generated from a fixed prompt
type Section string

const (
	SectionAbout    Section = "about"
	SectionProjects Section = "projects"
)

const aboutPrompt = `Generate a professional 'About Me' section for a portfolio for Muskan Khan, a DIT (Diploma in Information Technology) student with an expected graduation year of 2026. The tone should be enthusiastic and professional. Highlight key interests like full-stack development, UI/UX design, and cloud computing. Keep it concise, around 3-4 sentences.`

const projectsPrompt = `Generate a list of 3 fictional but impressive web development project ideas suitable for the portfolio of a student named Muskan Khan, a DIT student graduating in 2026. For each project, provide a name, a one-sentence description, and a list of key technologies used. Format the output as a clean, readable list. Use markdown-style headings for project names.`

// Copy shown before anything is generated, and again when generation fails.
const (
	initialAboutText    = "An aspiring and dedicated student pursuing a Diploma in Information Technology, with a strong foundation in web development technologies. Passionate about creating intuitive and dynamic user experiences."
	initialProjectsText = "Click the button above to generate project ideas using Google's latest AI models with up-to-date information from Google Search."
)

var sectionPrompts = map[Section]string{
	SectionAbout:    aboutPrompt,
	SectionProjects: projectsPrompt,
}

var sectionPlaceholders = map[Section]string{
	SectionAbout:    initialAboutText,
	SectionProjects: initialProjectsText,
}
