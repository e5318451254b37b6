package githubapi

import "strings"

const (
	repositoryFieldNameConstant     = "repository"
	repositorySeparatorConstant     = "/"
	requiredValueMessageConstant    = "value required"
	repositoryFormatMessageConstant = "expected owner/name"
	repositoryGitSuffixConstant     = ".git"
)

// Repository identifies a GitHub repository by owner and name.
type Repository struct {
	Owner string
	Name  string
}

// String renders the repository as owner/name.
func (repository Repository) String() string {
	return repository.Owner + repositorySeparatorConstant + repository.Name
}

// ParseRepository parses an owner/name identifier, tolerating surrounding whitespace and a .git suffix.
func ParseRepository(identifier string) (Repository, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return Repository{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedIdentifier = strings.TrimSuffix(trimmedIdentifier, repositoryGitSuffixConstant)
	components := strings.Split(trimmedIdentifier, repositorySeparatorConstant)
	if len(components) != 2 {
		return Repository{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: repositoryFormatMessageConstant}
	}

	owner := strings.TrimSpace(components[0])
	name := strings.TrimSpace(components[1])
	if len(owner) == 0 || len(name) == 0 {
		return Repository{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: repositoryFormatMessageConstant}
	}

	return Repository{Owner: owner, Name: name}, nil
}
