package product

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() []Product {
	return s.repo.List()
}

func (s *Service) ListByCategory(categoryID int) []Product {
	return s.repo.ListByCategory(categoryID)
}

func (s *Service) ListByIDs(ids []int) ([]Product, error) {
	return s.repo.ListByIDs(ids)
}

func (s *Service) GetByID(id int) (Product, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Create(p Product) (Product, error) {
	return s.repo.Create(p)
}

func (s *Service) Update(id int, p Product) (Product, error) {
	return s.repo.Update(id, p)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}

// AdjustStock forwards an inventory adjustment to the store. Callers use a
// negative delta for a sale and a positive one for restitution.
func (s *Service) AdjustStock(id int, delta int) (Product, error) {
	return s.repo.AdjustStock(id, delta)
}
