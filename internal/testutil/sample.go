package testutil

import (
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"
)

// Descriptor paths of the sample project's symbols.
const (
	User             = "App/Models/User#"
	UserID           = "App/Models/User#Id."
	UserIsActive     = "App/Models/User#IsActive."
	UserCtor         = "App/Models/User#`.ctor`()."
	UserActivate     = "App/Models/User#Activate()."
	IUserService     = "App/Services/IUserService#"
	IUserGetByID     = "App/Services/IUserService#GetById()."
	UserService      = "App/Services/UserService#"
	UserGetByID      = "App/Services/UserService#GetById()."
	UserEnable       = "App/Services/UserService#Enable()."
	AdminUserService = "App/Services/AdminUserService#"
	AdminIsAdmin     = "App/Services/AdminUserService#IsAdmin()."
	UserController   = "App/Controllers/UserController#"
	ControllerField  = "App/Controllers/UserController#_userService."
	ControllerCtor   = "App/Controllers/UserController#`.ctor`()."
	ControllerGet    = "App/Controllers/UserController#GetUser()."
	SystemObject     = "System/Object#"
)

const userSource = `namespace App.Models
{
    public class User
    {
        public int Id { get; set; }

        public bool IsActive { get; private set; }

        public User(int id)
        {
            Id = id;
        }

        public void Activate()
        {
            IsActive = true;
        }
    }
}
`

const iUserServiceSource = `using App.Models;

namespace App.Services
{
    public interface IUserService
    {
        User GetById(int id);
    }
}
`

const userServiceSource = `using App.Models;

namespace App.Services
{
    public class UserService : IUserService
    {
        public virtual User GetById(int id)
        {
            var user = new User(id);
            user.Activate();
            return user;
        }

        public void Enable(User first, User second)
        {
            first.Activate();
            second.Activate();
        }
    }
}
`

const adminUserServiceSource = `using App.Models;

namespace App.Services
{
    public class AdminUserService : UserService
    {
        public bool IsAdmin(User user)
        {
            return user.Id == 0;
        }
    }
}
`

const userControllerSource = `using App.Models;
using App.Services;

namespace App.Controllers
{
    public class UserController
    {
        private readonly UserService _userService;

        public UserController(UserService userService)
        {
            _userService = userService;
        }

        public User GetUser(int id)
        {
            return _userService.GetById(id);
        }
    }
}
`

// SampleProject returns a small C# service layer:
//
//	Models/User.cs                   User { Id, IsActive, User(int), Activate() }
//	Services/IUserService.cs         IUserService { GetById }
//	Services/UserService.cs          UserService : IUserService { GetById, Enable }
//	Services/AdminUserService.cs     AdminUserService : UserService { IsAdmin }
//	Controllers/UserController.cs    UserController { _userService, GetUser }
//
// GetUser makes exactly one call, to UserService.GetById. Activate is
// declared once and called three times, all in Services/UserService.cs.
func SampleProject() *Project {
	p := NewProject("App")
	s := p.Symbol

	p.External(s(SystemObject), SymbolInfo{Kind: scip.SymbolInformation_Class, DisplayName: "Object", Signature: "public class Object"})

	p.File("Models/User.cs", userSource).
		Def(s(User), "User", 1, SymbolInfo{
			Kind: scip.SymbolInformation_Class, DisplayName: "User",
			Signature: "public class User", Implements: []string{s(SystemObject)},
		}).
		Def(s(UserID), "Id", 1, SymbolInfo{Kind: scip.SymbolInformation_Property, DisplayName: "Id", Signature: "public int Id { get; set; }"}).
		Def(s(UserIsActive), "IsActive", 1, SymbolInfo{Kind: scip.SymbolInformation_Property, DisplayName: "IsActive", Signature: "public bool IsActive { get; private set; }"}).
		Def(s(UserCtor), "User", 2, SymbolInfo{Kind: scip.SymbolInformation_Constructor, DisplayName: ".ctor", Signature: "public User(int id)"}).
		Write(s(UserID), "Id", 2).
		Def(s(UserActivate), "Activate", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "Activate", Signature: "public void Activate()"}).
		Write(s(UserIsActive), "IsActive", 2)

	p.File("Services/IUserService.cs", iUserServiceSource).
		Def(s(IUserService), "IUserService", 1, SymbolInfo{Kind: scip.SymbolInformation_Interface, DisplayName: "IUserService", Signature: "public interface IUserService"}).
		Ref(s(User), "User", 1).
		Def(s(IUserGetByID), "GetById", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "GetById", Signature: "User GetById(int id)"})

	p.File("Services/UserService.cs", userServiceSource).
		Def(s(UserService), "UserService", 1, SymbolInfo{
			Kind: scip.SymbolInformation_Class, DisplayName: "UserService",
			Signature: "public class UserService : IUserService", Implements: []string{s(IUserService)},
		}).
		Ref(s(IUserService), "IUserService", 1).
		Ref(s(User), "User", 1).
		Def(s(UserGetByID), "GetById", 1, SymbolInfo{
			Kind: scip.SymbolInformation_Method, DisplayName: "GetById",
			Signature: "public virtual User GetById(int id)", Implements: []string{s(IUserGetByID)},
		}).
		Ref(s(UserCtor), "User", 2).
		Ref(s(UserActivate), "Activate", 1).
		Def(s(UserEnable), "Enable", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "Enable", Signature: "public void Enable(User first, User second)"}).
		Ref(s(User), "User", 3).
		Ref(s(User), "User", 4).
		Ref(s(UserActivate), "Activate", 2).
		Ref(s(UserActivate), "Activate", 3)

	p.File("Services/AdminUserService.cs", adminUserServiceSource).
		Def(s(AdminUserService), "AdminUserService", 1, SymbolInfo{
			Kind: scip.SymbolInformation_Class, DisplayName: "AdminUserService",
			Signature: "public class AdminUserService : UserService", Implements: []string{s(UserService)},
		}).
		Ref(s(UserService), "UserService", 1).
		Def(s(AdminIsAdmin), "IsAdmin", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "IsAdmin", Signature: "public bool IsAdmin(User user)"}).
		Ref(s(User), "User", 1).
		Ref(s(UserID), "Id", 1).
		Diagnostic("IsAdmin", 1, scip.Severity_Information, "CA1822", "Member 'IsAdmin' does not access instance data and can be marked as static")

	p.File("Controllers/UserController.cs", userControllerSource).
		Def(s(UserController), "UserController", 1, SymbolInfo{Kind: scip.SymbolInformation_Class, DisplayName: "UserController", Signature: "public class UserController"}).
		Ref(s(UserService), "UserService", 1).
		Def(s(ControllerField), "_userService", 1, SymbolInfo{Kind: scip.SymbolInformation_Field, DisplayName: "_userService", Signature: "private readonly UserService _userService"}).
		Def(s(ControllerCtor), "UserController", 2, SymbolInfo{Kind: scip.SymbolInformation_Constructor, DisplayName: ".ctor", Signature: "public UserController(UserService userService)"}).
		Ref(s(UserService), "UserService", 2).
		Write(s(ControllerField), "_userService", 2).
		Ref(s(User), "User", 1).
		Def(s(ControllerGet), "GetUser", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "GetUser", Signature: "public User GetUser(int id)"}).
		Ref(s(ControllerField), "_userService", 3).
		Ref(s(UserGetByID), "GetById", 1)

	return p
}

// LoadSample writes the sample project into a fresh temp directory.
func LoadSample(t testing.TB) *FixtureContext {
	t.Helper()
	return WriteProject(t, t.TempDir(), SampleProject())
}

// Descriptor paths of the implicit-call project's symbols.
const (
	Base        = "App/Models/Base#"
	BaseCtor    = "App/Models/Base#`.ctor`()."
	Derived     = "App/Models/Derived#"
	DerivedCtor = "App/Models/Derived#`.ctor`()."
	DerivedCopy = "App/Models/Derived#Copy()."
)

const shapesSource = `namespace App.Models
{
    public class Base
    {
        public Base()
        {
        }
    }

    public class Derived : Base
    {
        public Derived()
        {
        }

        public Base Copy()
        {
            return new Base();
        }
    }
}
`

// ImplicitCallProject returns a project where Derived's constructor calls
// Base's constructor implicitly (line 12) and Copy calls it explicitly
// (line 18).
func ImplicitCallProject() *Project {
	p := NewProject("App")
	s := p.Symbol

	p.File("Models/Shapes.cs", shapesSource).
		Def(s(Base), "Base", 1, SymbolInfo{Kind: scip.SymbolInformation_Class, DisplayName: "Base", Signature: "public class Base"}).
		Def(s(BaseCtor), "Base", 2, SymbolInfo{Kind: scip.SymbolInformation_Constructor, DisplayName: ".ctor", Signature: "public Base()"}).
		Def(s(Derived), "Derived", 1, SymbolInfo{
			Kind: scip.SymbolInformation_Class, DisplayName: "Derived",
			Signature: "public class Derived : Base", Implements: []string{s(Base)},
		}).
		Ref(s(Base), "Base", 3).
		Def(s(DerivedCtor), "Derived", 2, SymbolInfo{Kind: scip.SymbolInformation_Constructor, DisplayName: ".ctor", Signature: "public Derived()"}).
		Generated(s(BaseCtor), "Derived", 2).
		Ref(s(Base), "Base", 4).
		Def(s(DerivedCopy), "Copy", 1, SymbolInfo{Kind: scip.SymbolInformation_Method, DisplayName: "Copy", Signature: "public Base Copy()"}).
		Ref(s(BaseCtor), "Base", 5)

	return p
}

// LoadImplicitCalls writes ImplicitCallProject into a fresh temp directory.
func LoadImplicitCalls(t testing.TB) *FixtureContext {
	t.Helper()
	return WriteProject(t, t.TempDir(), ImplicitCallProject())
}
