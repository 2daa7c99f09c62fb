package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkarlsen/stint/internal/store"
)

var projectColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type projectsModel struct {
	store  *store.Store
	width  int
	height int

	projects []store.Project
	cursor   int

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formName  *string
	formColor *string

	confirmingRemove bool
}

func newProjectsModel(s *store.Store) projectsModel {
	name, color := "", projectColors[0]
	return projectsModel{
		store:     s,
		formName:  &name,
		formColor: &color,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p projectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		projects, _ := p.store.ListProjects()
		return projectsDataMsg{projects: projects}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return p, nil

	case projectRemovedMsg:
		return p, p.refresh()

	case tea.KeyMsg:
		if p.confirmingRemove {
			return p.updateConfirmRemove(msg)
		}

		switch {
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.projects)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.New):
			return p.showNewProjectForm()
		case key.Matches(msg, keys.Delete):
			if len(p.projects) > 0 {
				p.confirmingRemove = true
			}
		case key.Matches(msg, keys.Enter):
			if len(p.projects) > 0 {
				project := p.projects[p.cursor]
				return p, func() tea.Msg { return openReportMsg{project: project} }
			}
		}
	}
	return p, nil
}

func (p projectsModel) updateConfirmRemove(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		p.confirmingRemove = false
		proj := p.projects[p.cursor]
		return p, func() tea.Msg {
			if err := p.store.RemoveProject(proj.ID); err != nil {
				return statusMsg{text: fmt.Sprintf("Remove failed: %v", err), isError: true}
			}
			return projectRemovedMsg{name: proj.Name}
		}
	case key.Matches(msg, keys.Back):
		p.confirmingRemove = false
	}
	return p, nil
}

func (p projectsModel) showNewProjectForm() (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formColor = projectColors[0]

	colorOptions := make([]huh.Option[string], len(projectColors))
	for i, c := range projectColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", c), c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		if *p.formName != "" {
			p.store.CreateProject(*p.formName, *p.formColor)
		}
		return p, p.refresh()
	}

	return p, cmd
}

func (p projectsModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		formView := p.form.View()
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", formView)
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, proj := range p.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s", cursor, colorDot, proj.Name))
		if p.confirmingRemove && i == p.cursor {
			row += errorStyle.Render("  remove? enter: yes  esc: no")
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  d: remove  enter: report"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
