// Gomock doubles for the port interfaces. Regenerate with go generate.
package mocks

//go:generate mockgen -destination=prompt_repository.go -package=mocks -mock_names=Repository=MockPromptRepository,Resolver=MockPromptResolver github.com/alanyang/promptledger/internal/port/prompt Repository,Resolver
//go:generate mockgen -destination=run_repository.go -package=mocks -mock_names=Repository=MockRunRepository github.com/alanyang/promptledger/internal/port/run Repository
//go:generate mockgen -destination=eventbus.go -package=mocks github.com/alanyang/promptledger/internal/port/eventbus EventBus
//go:generate mockgen -destination=locker.go -package=mocks github.com/alanyang/promptledger/internal/port/locker AdvisoryLocker
//go:generate mockgen -destination=dispatcher.go -package=mocks github.com/alanyang/promptledger/internal/port/dispatcher RunDispatcher
